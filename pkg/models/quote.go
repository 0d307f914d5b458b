package models

// QuoteRequest is the normalized input for one fan-out round. It is built
// from form input or from a stored cotizacion and does not change once the
// round has been dispatched to the insurers.
type QuoteRequest struct {
	Cedula          string `json:"cedula"`
	Nombre          string `json:"nombre"`
	FechaNacimiento string `json:"fecha_nacimiento"`
	Genero          string `json:"genero"`
	EstadoCivil     string `json:"estado_civil"`
	Ciudad          string `json:"ciudad"`

	Placa  string  `json:"placa"`
	Marca  string  `json:"marca"`
	Modelo string  `json:"modelo"`
	Anio   int     `json:"anio"`
	Valor  float64 `json:"valor"`
	Uso    string  `json:"uso"`

	// Insurer-specific passthrough fields, forwarded verbatim.
	Extras map[string]any `json:"extras,omitempty"`
}

// InsurerQuote is one insurer's successful quote payload.
type InsurerQuote struct {
	Aseguradora string   `json:"aseguradora"`
	Plan        string   `json:"plan"`
	PrimaNeta   float64  `json:"prima_neta"`
	PrimaTotal  float64  `json:"prima_total"`
	Tasa        float64  `json:"tasa"`
	Coberturas  []string `json:"coberturas"`
	Beneficios  []string `json:"beneficios"`
	Deducibles  []string `json:"deducibles"`
	DocumentURL string   `json:"document_url,omitempty"`
}

// InsurerResult is the outcome of one insurer call within a fan-out round.
// Exactly one of Quote or Error is set.
type InsurerResult struct {
	OK    bool          `json:"ok"`
	Quote *InsurerQuote `json:"quote,omitempty"`
	Error string        `json:"error,omitempty"`
}

// FanOutResult maps insurer key to the outcome of its call.
type FanOutResult map[string]InsurerResult
