package crm

import "fmt"

// Stage the deal moves to once a plan has been chosen.
const StagePreparation = "C24:PREPARATION"

// fieldCodes maps domain field names to the tenant's opaque CRM custom-field
// identifiers. The codes are fixed per CRM schema, not discoverable at runtime.
var fieldCodes = map[string]string{
	"cedula":           "UF_CRM_1745261796",
	"nombre":           "UF_CRM_1745261813",
	"fecha_nacimiento": "UF_CRM_1745261827",
	"genero":           "UF_CRM_1745261842",
	"estado_civil":     "UF_CRM_1745261858",
	"ciudad":           "UF_CRM_1745261874",
	"email":            "UF_CRM_1745261890",
	"telefono":         "UF_CRM_1745261905",
	"placa":            "UF_CRM_1745261921",
	"marca":            "UF_CRM_1745261937",
	"modelo":           "UF_CRM_1745261952",
	"anio":             "UF_CRM_1745261968",
	"valor":            "UF_CRM_1745261984",
	"uso":              "UF_CRM_1745262001",
	"aseguradora":      "UF_CRM_1745262017",
	"plan":             "UF_CRM_1745262033",
	"prima_neta":       "UF_CRM_1745262049",
	"prima_total":      "UF_CRM_1745262065",
	"tasa":             "UF_CRM_1745262081",
}

// DealForm is the incoming deal payload. Both the flat Fields shape and the
// nested Client/Vehicle shape are accepted; nested values win on collision.
type DealForm struct {
	Title   string            `json:"title"`
	Fields  map[string]string `json:"fields,omitempty"`
	Client  map[string]string `json:"client,omitempty"`
	Vehicle map[string]string `json:"vehicle,omitempty"`
}

// mapFields flattens a DealForm and translates domain names to CRM custom
// field codes. Unknown domain names are dropped.
func mapFields(form DealForm) map[string]any {
	flat := make(map[string]string, len(form.Fields)+len(form.Client)+len(form.Vehicle))
	for k, v := range form.Fields {
		flat[k] = v
	}
	for k, v := range form.Client {
		flat[k] = v
	}
	for k, v := range form.Vehicle {
		flat[k] = v
	}

	out := make(map[string]any, len(flat)+1)
	for name, value := range flat {
		if code, ok := fieldCodes[name]; ok {
			out[code] = value
		}
	}
	if form.Title != "" {
		out["TITLE"] = form.Title
	}
	return out
}

// PlanSelection carries the chosen plan's fields pushed onto the deal.
type PlanSelection struct {
	Aseguradora string
	Plan        string
	PrimaNeta   float64
	PrimaTotal  float64
	Tasa        float64
}

func (p PlanSelection) fields() map[string]any {
	return map[string]any{
		fieldCodes["aseguradora"]: p.Aseguradora,
		fieldCodes["plan"]:        p.Plan,
		fieldCodes["prima_neta"]:  fmt.Sprintf("%.2f", p.PrimaNeta),
		fieldCodes["prima_total"]: fmt.Sprintf("%.2f", p.PrimaTotal),
		fieldCodes["tasa"]:        fmt.Sprintf("%.4f", p.Tasa),
		"STAGE_ID":                StagePreparation,
	}
}
