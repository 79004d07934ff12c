// Package files models platform file objects a task manipulates.
//
// Ownership boundary:
// - file kinds and their declared storage keys
// - metainfo read/write through the bridge
// - storage unit staging (GET/PUT/DOWNLOAD) and checksum recording
package files
