// Package sync keeps the local annotation store and the hypothes.is account
// eventually consistent.
//
// A pass is upload, then download. Uploading first moves the upload
// watermark past every known local change before remote state is pulled
// in, so freshly downloaded annotations are never pushed straight back.
//
// Both directions are driven by persisted watermarks. A watermark is
// captured before the data it covers is read and committed only after the
// pass succeeded, so an interrupted or failed pass is simply redone next
// time. Redelivery is idempotent: a created annotation immediately gets its
// remote id stored locally, and downloads upsert by remote id.
//
// After the first successful pass the engine watches the store: changed
// annotations schedule a debounced upload, removed ones are deleted remotely
// right away.
package sync
