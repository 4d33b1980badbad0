package lookup

// Item is one entry of a lookup list: an identifier and its display name.
// Patients and doctors are named by full name, medicines by name.
type Item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Kind names one of the lookup lists.
type Kind string

const (
	KindPatients  Kind = "patients"
	KindDoctors   Kind = "doctors"
	KindMedicines Kind = "medicines"
)

// Valid reports whether k is a known lookup list.
func (k Kind) Valid() bool {
	switch k {
	case KindPatients, KindDoctors, KindMedicines:
		return true
	}
	return false
}
