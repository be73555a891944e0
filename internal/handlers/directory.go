package handlers

import (
	"net/http"

	"ecocollect-backend/internal/database"
	"ecocollect-backend/pkg/utils"
)

// GetCollectors lists all users with the collector role
func GetCollectors(store *database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collectors, err := store.ListCollectors(r.Context())
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Collectors retrieved", collectors)
	}
}

// GetTrucks lists the truck fleet
func GetTrucks(store *database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trucks, err := store.ListTrucks(r.Context())
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Trucks retrieved", trucks)
	}
}

// GetWards lists the registered wards
func GetWards(store *database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wards, err := store.ListWards(r.Context())
		if err != nil {
			respondEngineError(w, err)
			return
		}
		utils.Success(w, http.StatusOK, "Wards retrieved", wards)
	}
}
