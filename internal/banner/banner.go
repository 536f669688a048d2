package banner

import "fmt"

const art = `

  _ __ __ _ _ __   __ _  ___ _ __
 | '__/ _' | '_ \ / _' |/ _ \ '_ \
 | | | (_| | |_) | (_| |  __/ | | |
 |_|  \__,_| .__/ \__, |\___|_| |_|
           |_|    |___/
`

// Banner returns the CLI banner with the version line.
func Banner(version string) string {
	return fmt.Sprintf("%s   rhyme generator %s\n\n", art, version)
}
