package dto

type AccessRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
}

type AccessRegistration struct {
	Email            string `json:"email"`
	AlreadyVerified  bool   `json:"alreadyVerified"`
	VerificationLink string `json:"-"`
}
