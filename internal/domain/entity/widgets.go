package entity

// Testimonial is a supporter quote shown by the carousel
type Testimonial struct {
	Author string `json:"author"`
	Quote  string `json:"quote"`
}

// FormKind selects the email template of a submitted form
type FormKind string

const (
	FormContact FormKind = "contact"
	FormDonate  FormKind = "donate"
)

// FormSubmission holds the fields posted by the contact and donation forms
type FormSubmission struct {
	Kind      FormKind `json:"kind"`
	Name      string   `json:"name"`
	DonorName string   `json:"donor_name"`
	Email     string   `json:"email"`
	Message   string   `json:"message"`
	Amount    string   `json:"amount"`
}

// ShareLink is a prebuilt social-share deep link
type ShareLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}
