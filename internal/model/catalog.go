package model

// Catalog lists the choices offered by the entry and roster forms.
// Values are suggestions only; nothing validates against them.
type Catalog struct {
	Courses   []string `json:"courses"`
	Branches  []string `json:"branches"`
	Semesters []string `json:"semesters"`
}

// DefaultCatalog returns the campus form choices.
func DefaultCatalog() Catalog {
	return Catalog{
		Courses:   []string{"B.E", "DIPLOMA", "BSc", "MSc", "Visitor", "Parent", "Teacher", "Staff"},
		Branches:  []string{"Computer Engineering", "Mechanical Engineering", "Electrical Engineering", "Civil Engineering", "IT", "Visitor", "Parent", "Teacher", "Staff"},
		Semesters: []string{"1", "2", "3", "4", "5", "6", "7", "8", NotAvailable},
	}
}
