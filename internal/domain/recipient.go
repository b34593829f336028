package domain

// Recipient is a single validated send target produced by the recipient
// supplier. Immutable once produced. AuxiliaryData carries the optional
// second CSV column (typically a display name) used for personalization.
//
// Uniqueness invariant: within one run, no two recipients share Address
// (exact-string compare).
type Recipient struct {
	Address       string `json:"address"`
	AuxiliaryData string `json:"auxiliary_data,omitempty"`
}
