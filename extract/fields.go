package extract

// DefaultFields is the canonical incident schema the extractor targets.
// Callers must treat it as read-only; pass a copy if a custom subset is
// needed.
var DefaultFields = []string{
	"incident_neris_id",
	"incident_internal_id",
	"incident_final_type",
	"incident_final_type_primary",
	"incident_special_modifier",
	"fire",
	"medical",
	"hazsit",
	"emerging_hazard",
	"tactic_timestamps",
	"incident_point",
	"incident_polygon",
	"incident_location",
	"incident_location_use",
	"incident_people_present",
	"incident_displaced_number",
	"incident_displaced_cause",
	"exposure",
	"rescue_ff",
	"rescue_nonff",
	"incident_rescue_animal",
	"incident_actions_taken",
	"incident_noaction",
	"unit_response",
	"risk_reduction",
	"incident_aid_direction",
	"incident_aid_type",
	"incident_aid_department_name",
	"incident_aid_nonfd",
	"incident_narrative_impediment",
	"incident_narrative_outcome",
	"parcel",
	"weather",
	"fire_suppression_appliance",
	"fire_water_supply",
	"fire_investigation_need",
	"fire_investigation_type",
	"structure_arrival_conditions",
	"structure_progression_conditions",
	"structure_damage",
	"structure_floor_of_origin",
	"structure_room_of_origin",
	"structure_fire_cause",
	"outside_fire_cause",
	"outside_fire_acres_burned",
}

// Fields returns a fresh copy of DefaultFields safe to modify.
func Fields() []string {
	return append([]string(nil), DefaultFields...)
}
