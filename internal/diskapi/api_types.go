package diskapi

// ResourceType discriminates files from folders in listings.
const (
	ResourceFile = "file"
	ResourceDir  = "dir"
)

// Resource is one item of a remote folder listing.
type Resource struct {
	Name     string `json:"name"`
	Modified string `json:"modified"` // ISO-8601 with explicit timezone
	Type     string `json:"type"`
}

// resourceMeta is the folder metadata response; only the embedded listing is
// requested via the fields filter.
type resourceMeta struct {
	Embedded struct {
		Items []Resource `json:"items"`
	} `json:"_embedded"`
}

// transferLink is the capability negotiation response for uploads/downloads.
type transferLink struct {
	Href      string `json:"href"`
	Method    string `json:"method"`
	Templated bool   `json:"templated"`
}

// TransferDirection selects the negotiation endpoint.
type TransferDirection string

const (
	TransferUpload   TransferDirection = "upload"
	TransferDownload TransferDirection = "download"
)
