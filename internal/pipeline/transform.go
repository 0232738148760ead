package pipeline

// Transform rewrites a rendered page, for example to lint it or convert
// it to HTML.
type Transform func(md string) string

// Compose chains ts so that the first one runs first. No transforms is the
// identity.
func Compose(ts ...Transform) Transform {
	return func(md string) string {
		for _, t := range ts {
			if t != nil {
				md = t(md)
			}
		}
		return md
	}
}
