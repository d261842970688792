// Package textutil provides slug and file name helpers shared by the stages
// that write artifacts to disk.
//
// Slugs are lowercase ASCII with accents stripped through Unicode
// decomposition, so "Canción del Año" becomes "cancion-del-ano".
package textutil
