// Package pinning uploads files to a Pinata-compatible pinning API and
// resolves content identifiers to gateway URLs.
package pinning
