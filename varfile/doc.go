// Package varfile loads variable sources for the template generator
// from JSON documents, multi-document YAML streams and "KEY VALUE"
// status files. Assignments given on the command line as NAME=VALUE
// are parsed by ParseAssignments.
package varfile
