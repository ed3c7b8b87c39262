package docstore

import "fmt"

// DefaultGateway is the public IPFS gateway the browser fetches content
// from. The core never fetches through it itself; these helpers only shape
// URLs for the rendering layer.
const DefaultGateway = "https://ipfs.io/ipfs"

// ImageURL returns the gateway URL for the land image.
func ImageURL(imageHash string) string {
	return fmt.Sprintf("%s/%s", DefaultGateway, imageHash)
}

// DocumentURL returns the gateway URL for the land document PDF. The
// document identifier addresses a directory; the PDF sits at the path the
// publisher stored it under.
func DocumentURL(documentHash string) string {
	return fmt.Sprintf("%s/%s/image/%s", DefaultGateway, documentHash, documentFileName)
}
