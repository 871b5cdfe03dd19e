package models

import "time"

// PortraitSession represents one pet's portrait generation session
type PortraitSession struct {
	ID        string     `json:"id"`
	TabID     string     `json:"-"`
	PetName   string     `json:"pet_name,omitempty"`
	Species   string     `json:"species"`
	Breed     string     `json:"breed,omitempty"`
	Source    ImageItem  `json:"source"`
	Portraits []Portrait `json:"portraits"`
	Provider  string     `json:"provider,omitempty"`
	Model     string     `json:"model,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ImageItem represents the uploaded pet photo
type ImageItem struct {
	ImagePath   string `json:"image_path"`
	ImageURL    string `json:"image_url"`
	MIMEType    string `json:"mime_type"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
}

// Portrait represents one generated, stored portrait
type Portrait struct {
	StyleID    string    `json:"style_id"`
	StyleName  string    `json:"style_name"`
	ImageURL   string    `json:"image_url,omitempty"`
	ResourceID string    `json:"resource_id,omitempty"`
	MIMEType   string    `json:"mime_type,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
