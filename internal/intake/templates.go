package intake

import (
	"fmt"
	"strings"

	"medintake/internal/agent"
)

func symptomsOf(p PatientIntake, c Context) string {
	if p.Symptoms != "" {
		return p.Symptoms
	}
	return c.String(KeySymptoms)
}

// triageTasks runs the triage role and then the records role, which reads
// the triage output to pick a doctor.
func triageTasks(p PatientIntake) []agent.Task {
	return []agent.Task{
		{
			Stage:          string(StageTriage),
			Kind:           agent.KindTriage,
			Role:           agent.RoleTriage,
			Description:    fmt.Sprintf(triagePrompt, p.Name, p.Age, p.Symptoms),
			ExpectedOutput: triageExpected,
			Params: map[string]any{
				agent.ParamName:     p.Name,
				agent.ParamAge:      p.Age,
				agent.ParamSymptoms: p.Symptoms,
			},
		},
		{
			Stage:          string(StageTriage),
			Kind:           agent.KindDoctorLookup,
			Role:           agent.RoleRecords,
			Description:    fmt.Sprintf(doctorLookupPrompt, p.Name, p.Age, p.Symptoms),
			ExpectedOutput: doctorLookupExpected,
			Params: map[string]any{
				agent.ParamAge:      p.Age,
				agent.ParamSymptoms: p.Symptoms,
			},
		},
	}
}

func suggestTasks(c Context) []agent.Task {
	doctorID, _ := c.Int64(KeyDoctorID)
	name := c.String(KeyDoctorName)
	urgency := c.String(KeyUrgency)
	return []agent.Task{{
		Stage:          string(StageSuggest),
		Kind:           agent.KindNearestSlot,
		Role:           agent.RoleRecords,
		Description:    fmt.Sprintf(suggestPrompt, name, doctorID, orUnknown(urgency), doctorLabel(name, c.String(KeyDoctorTitle))),
		ExpectedOutput: suggestExpected,
		Params: map[string]any{
			agent.ParamDoctorID:   doctorID,
			agent.ParamDoctorName: name,
			agent.ParamUrgency:    urgency,
		},
	}}
}

func confirmTasks(p PatientIntake, c Context) []agent.Task {
	doctorID, _ := c.Int64(KeyDoctorID)
	name := c.String(KeyDoctorName)
	date, hour := c.String(KeyDate), c.String(KeyTime)
	patientID := c.String(KeyPatientID)
	symptoms := symptomsOf(p, c)
	urgency := c.String(KeyUrgency)
	desc := fmt.Sprintf(confirmPrompt, name, doctorID, date, hour,
		patientID, p.Name, p.Age, symptoms, urgency,
		patientID, doctorID, date, hour)
	return []agent.Task{{
		Stage:          string(StageConfirm),
		Kind:           agent.KindConfirm,
		Role:           agent.RoleRecords,
		Description:    desc,
		ExpectedOutput: confirmExpected,
		Params: map[string]any{
			agent.ParamPatientID:  patientID,
			agent.ParamName:       p.Name,
			agent.ParamAge:        p.Age,
			agent.ParamPhone:      p.Phone,
			agent.ParamSymptoms:   symptoms,
			agent.ParamUrgency:    urgency,
			agent.ParamDoctorID:   doctorID,
			agent.ParamDoctorName: name,
			agent.ParamDate:       date,
			agent.ParamTime:       hour,
		},
	}}
}

func negotiateTasks(c Context) []agent.Task {
	doctorID, _ := c.Int64(KeyDoctorID)
	name := c.String(KeyDoctorName)
	date, hour := c.String(KeyDesiredDate), c.String(KeyDesiredTime)
	urgency := c.String(KeyUrgency)
	return []agent.Task{{
		Stage:          string(StageNegotiate),
		Kind:           agent.KindNegotiate,
		Role:           agent.RoleRecords,
		Description:    fmt.Sprintf(negotiatePrompt, name, doctorID, date, hour, orUnknown(urgency), doctorLabel(name, c.String(KeyDoctorTitle))),
		ExpectedOutput: negotiateExpected,
		Params: map[string]any{
			agent.ParamDoctorID:    doctorID,
			agent.ParamDoctorName:  name,
			agent.ParamUrgency:     urgency,
			agent.ParamDesiredDate: date,
			agent.ParamDesiredTime: hour,
		},
	}}
}

// doctorLabel renders the extracted name ("López") with the article and
// title the records role should use ("la Dra. López").
func doctorLabel(name, title string) string {
	if strings.HasPrefix(name, "Dr.") || strings.HasPrefix(name, "Dra.") {
		return agent.WithArticle(name)
	}
	if title == "Dra." {
		return "la Dra. " + name
	}
	return "el Dr. " + name
}

func orUnknown(s string) string {
	if s == "" {
		return "no especificada"
	}
	return s
}
