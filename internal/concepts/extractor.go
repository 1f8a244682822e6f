package concepts

// Relation is an ordered pair of concept names believed to be associated.
type Relation struct {
	Source string
	Target string
}

// Extractor turns plain text into an ordered concept list plus concept-pair
// relations. The frequency-filter reference implementation and any future
// model-backed extractor both satisfy this interface; the pipeline only
// depends on the contract.
type Extractor interface {
	Extract(text string) ([]string, []Relation)
}
