package media

// DetailAuto is the presentation hint attached to every inlined medium.
const DetailAuto = "auto"

// DefaultContentType is used when neither the source nor sniffing yields a type.
const DefaultContentType = "image/jpeg"

// InlinedMedium is a fetched media item encoded for direct inclusion in a prompt.
// It only lives for the duration of one completion call.
type InlinedMedium struct {
	Locator     string
	ContentType string
	// DataURL is data:<content type>;base64,<payload>.
	DataURL string
	Detail  string
	Size    int
}
