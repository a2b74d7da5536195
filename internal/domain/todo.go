package domain

// Todo is the single entity managed by the service. Completed is stored as an
// integer column; the repository converts it before a Todo is built.
type Todo struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// TodoPatch carries a partial update. Nil fields are left untouched, so a
// patch can tell "not supplied" apart from an empty title or completed=false.
type TodoPatch struct {
	Title     *string
	Completed *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Completed == nil
}
