package models

// SparkProfile is the projection of one officer's SPARK record.
//
// Dependents is a single flat object (father_name, mother_name, spouse_name);
// training and education are lists.
type SparkProfile struct {
	PEN        string           `json:"pen"`
	Name       string           `json:"name,omitempty"`
	Dependents map[string]any   `json:"dependents,omitempty"`
	Training   []map[string]any `json:"training,omitempty"`
	Education  []map[string]any `json:"education,omitempty"`
}

// ProfileBundle is the body of GET /officer/officer.
type ProfileBundle struct {
	SparkData   SparkProfile                `json:"spark_data"`
	OfficerData map[string][]map[string]any `json:"officer_data"`
}

// SavePayload is the body of the create/update calls for a profile entity.
type SavePayload struct {
	SparkData map[string]any `json:"spark_data"`
	UserData  map[string]any `json:"user_data"`
}

// Empty reports whether neither side carries a field.
func (p SavePayload) Empty() bool {
	return len(p.SparkData) == 0 && len(p.UserData) == 0
}
