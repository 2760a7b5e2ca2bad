package domain

import "time"

type CVSource string

const (
	CVSourceManual CVSource = "manual"
	CVSourceAI     CVSource = "ai"
)

type Experience struct {
	Title       string `json:"title,omitempty" validate:"max=200"`
	Company     string `json:"company,omitempty" validate:"max=200"`
	StartDate   string `json:"start_date,omitempty" validate:"max=32"`
	EndDate     string `json:"end_date,omitempty" validate:"max=32"`
	Description string `json:"description,omitempty" validate:"max=5000"`
}

type Education struct {
	Degree    string `json:"degree,omitempty" validate:"max=200"`
	School    string `json:"school,omitempty" validate:"max=200"`
	StartDate string `json:"start_date,omitempty" validate:"max=32"`
	EndDate   string `json:"end_date,omitempty" validate:"max=32"`
}

// CVDocument is the structured CV persisted as a JSON document.
type CVDocument struct {
	FullName    string       `json:"full_name,omitempty" validate:"max=200"`
	Email       string       `json:"email,omitempty" validate:"omitempty,email,max=320"`
	Phone       string       `json:"phone,omitempty" validate:"max=64"`
	Location    string       `json:"location,omitempty" validate:"max=200"`
	Summary     string       `json:"summary,omitempty" validate:"max=5000"`
	Skills      []string     `json:"skills" validate:"max=200,dive,max=100"`
	Experiences []Experience `json:"experiences" validate:"max=100,dive"`
	Education   []Education  `json:"education" validate:"max=50,dive"`
}

// IsEmpty reports whether the document carries no information at all.
// A location on its own does not make a CV.
func (d CVDocument) IsEmpty() bool {
	return d.FullName == "" &&
		d.Email == "" &&
		d.Phone == "" &&
		d.Summary == "" &&
		len(d.Skills) == 0 &&
		len(d.Experiences) == 0 &&
		len(d.Education) == 0
}

// Normalize replaces nil slices so the JSON form always has arrays.
func (d CVDocument) Normalize() CVDocument {
	if d.Skills == nil {
		d.Skills = []string{}
	}
	if d.Experiences == nil {
		d.Experiences = []Experience{}
	}
	if d.Education == nil {
		d.Education = []Education{}
	}
	return d
}

// CV is one stored version of a user's CV.
type CV struct {
	ID        string
	UserID    string
	Version   int
	Source    CVSource
	Data      CVDocument
	CreatedAt time.Time
}

// CVParseResult is the outcome of turning extracted text into a CV.
// Reason explains why a document was judged not to be a CV.
type CVParseResult struct {
	IsCV   bool
	Reason string
	Data   CVDocument
}
