package models

// Truck represents a collection vehicle available for assignment
type Truck struct {
	TruckID     string `json:"truck_id" db:"truck_id"`
	TruckName   string `json:"truck_name" db:"truck_name"`
	PlateNumber string `json:"plate_number" db:"plate_number"`
	CapacityKg  int    `json:"capacity_kg" db:"capacity_kg"`
	Active      bool   `json:"active" db:"active"`
	CreatedAt   int64  `json:"created_at" db:"created_at"`
}

// Ward is a geographic subdivision of a zone used to scope followups
type Ward struct {
	WardID   string `json:"ward_id" db:"ward_id"`
	WardName string `json:"ward_name" db:"ward_name"`
	ZoneID   string `json:"zone_id" db:"zone_id"`
}

// Zone is a geographic grouping of wards used to scope routes
type Zone struct {
	ZoneID   string `json:"zone_id" db:"zone_id"`
	ZoneName string `json:"zone_name" db:"zone_name"`
}

// Bin is a registered waste bin serviced by route stops
type Bin struct {
	BinID     string `json:"bin_id" db:"bin_id"`
	BinNumber int    `json:"bin_number" db:"bin_number"`
	WardID    string `json:"ward_id" db:"ward_id"`
	WasteType string `json:"waste_type" db:"waste_type"` // "General", "Recyclable", "Organic"
	Address   string `json:"address" db:"address"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}
