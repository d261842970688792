// Command musicosa runs the awards batch pipeline and manages the records it
// depends on: awards, edition metadata, and settings.
package main
