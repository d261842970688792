// Package submissions ingests award forms and the entries catalog.
//
// Forms live in one folder, one CSV per award named after the award slug.
// The header row labels the entries ("Title" or "Title [Nominee]") and every
// following row holds one member's scores. The catalog CSV describes each
// entry: award, title, nominee, author, video URL and clip timestamp.
//
// Validation never aborts on bad data. Every problem becomes a message for
// the operator, and only records that passed their own checks are handed on
// for persistence.
package submissions
