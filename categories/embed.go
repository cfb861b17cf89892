// Package categories embeds the default category definitions shipped
// with the binary. A --categories directory overrides them.
package categories

import "embed"

//go:embed *.toml
var FS embed.FS
