package evaluation

import "appraise/internal/domain/auth"

// Field names the Patch members as they appear on the wire, so mask
// violations report exactly what the caller sent.
type Field string

const (
	FieldSelfEvaluation      Field = "selfEvaluation"
	FieldManagerEvaluation   Field = "managerEvaluation"
	FieldOverallRating       Field = "overallRating"
	FieldMeetingScheduledAt  Field = "meetingScheduledAt"
	FieldMeetingNotes        Field = "meetingNotes"
	FieldShowNotesToEmployee Field = "showNotesToEmployee"
	FieldCalibratedRating    Field = "calibratedRating"
	FieldCalibrationRemarks  Field = "calibrationRemarks"
)

var ownerFields = []Field{
	FieldSelfEvaluation,
}

var managerFields = []Field{
	FieldManagerEvaluation,
	FieldOverallRating,
	FieldMeetingScheduledAt,
	FieldMeetingNotes,
	FieldShowNotesToEmployee,
}

var allFields = []Field{
	FieldSelfEvaluation,
	FieldManagerEvaluation,
	FieldOverallRating,
	FieldMeetingScheduledAt,
	FieldMeetingNotes,
	FieldShowNotesToEmployee,
	FieldCalibratedRating,
	FieldCalibrationRemarks,
}

// AllowedFields returns the write mask for an actor on one evaluation row.
// Owners write their self side regardless of role; assigned managers write
// the review and meeting side; HR and admin roles write everything. The
// masks merge, so a manager acting on their own row keeps both sides.
func AllowedFields(roleName string, isOwner, isManager bool) map[Field]struct{} {
	out := make(map[Field]struct{}, len(allFields))
	if auth.Elevated(roleName) {
		for _, f := range allFields {
			out[f] = struct{}{}
		}
		return out
	}
	if isOwner {
		for _, f := range ownerFields {
			out[f] = struct{}{}
		}
	}
	if isManager {
		for _, f := range managerFields {
			out[f] = struct{}{}
		}
	}
	return out
}

// SentFields lists the patch members the caller actually supplied.
func (p Patch) SentFields() []Field {
	var out []Field
	if p.SelfEvaluation != nil {
		out = append(out, FieldSelfEvaluation)
	}
	if p.ManagerEvaluation != nil {
		out = append(out, FieldManagerEvaluation)
	}
	if p.OverallRating != nil {
		out = append(out, FieldOverallRating)
	}
	if p.MeetingScheduledAt != nil {
		out = append(out, FieldMeetingScheduledAt)
	}
	if p.MeetingNotes != nil {
		out = append(out, FieldMeetingNotes)
	}
	if p.ShowNotesToEmployee != nil {
		out = append(out, FieldShowNotesToEmployee)
	}
	if p.CalibratedRating != nil {
		out = append(out, FieldCalibratedRating)
	}
	if p.CalibrationRemarks != nil {
		out = append(out, FieldCalibrationRemarks)
	}
	return out
}

// MaskViolations reports every supplied field outside the allowed mask.
// Writes outside the mask are rejected, never silently dropped.
func MaskViolations(p Patch, allowed map[Field]struct{}) []Field {
	var out []Field
	for _, f := range p.SentFields() {
		if _, ok := allowed[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}
