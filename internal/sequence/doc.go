// Package sequence stores recorded event sequences in numbered slots.
//
// A Store holds max_slots slots, each an ordered list of Events plus
// Metadata. Slots are replaced wholesale: by a recording commit (Set), an
// import, or a load. Metadata event counts and durations are recomputed on
// every replacement so they always agree with the events.
//
// # Persistence
//
// Save writes a JSON document containing every non-empty slot:
//
//	{
//	  "version": "2.0.0",
//	  "saved_at": "...",
//	  "slots": {"1": {"metadata": {...}, "events": [...]}}
//	}
//
// Load accepts any document whose major version matches FileVersion.
// Out-of-range slots are skipped and oversized slots are truncated, each with
// a warning, so one bad slot never loses the rest of the file.
//
// Export and Import move a single slot using the same event and metadata
// shape.
package sequence
