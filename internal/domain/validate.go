package domain

import "fmt"

// ValidateBank checks the invariants every loader must enforce before a bank
// is handed to a session: at least one question, unique non-empty ids, text,
// two or more options and a correct answer that is one of them. Violations
// wrap ErrBankFormat.
func ValidateBank(bank Bank) error {
	if len(bank) == 0 {
		return fmt.Errorf("%w: bank has no questions", ErrBankFormat)
	}
	seen := make(map[string]struct{}, len(bank))
	for i, q := range bank {
		if q.ID == "" {
			return fmt.Errorf("%w: question %d has no id", ErrBankFormat, i)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrBankFormat, q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.Text == "" {
			return fmt.Errorf("%w: question %q has no text", ErrBankFormat, q.ID)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %q needs at least two options", ErrBankFormat, q.ID)
		}
		if !contains(q.Options, q.CorrectAnswer) {
			return fmt.Errorf("%w: question %q correct answer is not among its options", ErrBankFormat, q.ID)
		}
	}
	return nil
}

func contains(options []string, want string) bool {
	for _, opt := range options {
		if opt == want {
			return true
		}
	}
	return false
}
