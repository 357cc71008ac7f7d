package domain

// ─── Stage Artifacts ────────────────────────────────────────────────────────
// Each pipeline stage produces one typed record. A stage's output is the
// following stage's input context, so fields here are the contract between
// stages, not between the service and the model.

// Identification is the product-recognition result from the uploaded photo.
type Identification struct {
	ProductName string   `json:"product_name"`
	Materials   []string `json:"materials"`
	Colors      []string `json:"colors"`
	Features    []string `json:"features"`
	Audience    string   `json:"audience"`
}

// CategoryChoice is the recommended marketplace placement.
type CategoryChoice struct {
	Primary      string   `json:"primary"`
	Alternatives []string `json:"alternatives"`
	Rationale    string   `json:"rationale"`
}

// ListingDraft is the SEO listing copy. RawFallback is set when the model
// reply did not parse and the stage stored the reply verbatim as the
// description instead of failing.
type ListingDraft struct {
	Title       string   `json:"title"`
	Bullets     []string `json:"bullets"`
	Description string   `json:"description"`
	SearchTerms []string `json:"search_terms"`
	RawFallback bool     `json:"raw_fallback,omitempty"`
}

// ImageryPlan describes the supporting photo set for the listing.
type ImageryPlan struct {
	Shots []ImageShot `json:"shots"`
}

// ImageShot is one planned image with a generation-ready prompt.
type ImageShot struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// SecondaryContent is A+/brand-story supporting copy.
type SecondaryContent struct {
	Headline string   `json:"headline"`
	Modules  []string `json:"modules"`
}

// VideoScript is a short promotional script for the listing.
type VideoScript struct {
	Hook   string   `json:"hook"`
	Scenes []string `json:"scenes"`
	CTA    string   `json:"cta"`
}

// ExportBundle is the flat package handed to the download surface.
type ExportBundle struct {
	Brand        string            `json:"brand"`
	Title        string            `json:"title"`
	Bullets      []string          `json:"bullets"`
	Description  string            `json:"description"`
	SearchTerms  []string          `json:"search_terms"`
	Category     string            `json:"category"`
	ImagePrompts []string          `json:"image_prompts"`
	Secondary    *SecondaryContent `json:"secondary,omitempty"`
	Script       *VideoScript      `json:"script,omitempty"`
}
