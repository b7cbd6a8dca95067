package routers

import (
	"fractal-ledger/handlers"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up all the HTTP routes for the ledger
func RegisterRoutes(r *mux.Router, h *handlers.Handler) {

	// Segment ids and coordinates of a subdivision level
	r.HandleFunc("/fractal/{level:-?[0-9]+}", h.GetSegments).Methods("GET")

	// Registers every segment of a level as unresolved
	r.HandleFunc("/matrix/initialize", h.InitializeLevel).Methods("POST")

	r.HandleFunc("/matrix/segments", h.GetAllSegments).Methods("GET")
	r.HandleFunc("/matrix/segments/{id}", h.GetSegment).Methods("GET")
	r.HandleFunc("/matrix/segments/{id}/resolve", h.ResolveSegment).Methods("POST")
	r.HandleFunc("/matrix/segments/{id}/oracle/{source}", h.ResolveFromOracle).Methods("POST")
	r.HandleFunc("/matrix/segments/{id}/mine", h.MineSegment).Methods("POST")

	// Compressed dump of all segment states
	r.HandleFunc("/matrix/export", h.ExportSegments).Methods("GET")

	r.HandleFunc("/mining/scarcity/{level:-?[0-9]+}", h.GetScarcity).Methods("GET")
	r.HandleFunc("/mining/mine", h.Mine).Methods("POST")

	r.HandleFunc("/economics/genesis", h.Genesis).Methods("POST")
	r.HandleFunc("/economics/burn", h.Burn).Methods("POST")
	r.HandleFunc("/economics/dividends", h.Dividends).Methods("POST")
	r.HandleFunc("/economics/treasury", h.GetTreasury).Methods("GET")

	// Deployed contracts, the treasury included
	r.HandleFunc("/contracts", h.GetContracts).Methods("GET")
	r.HandleFunc("/contracts", h.DeployContract).Methods("POST")
	r.HandleFunc("/contracts/{id}", h.GetContract).Methods("GET")
	r.HandleFunc("/contracts/{id}/execute/{function}", h.ExecuteContract).Methods("POST")
}
