// Package save decodes binary game save files into an ordered key/value
// document serializable as JSON.
package save
