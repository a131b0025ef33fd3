package manager

// Exported aliases for testing internal functions from the
// manager_test package.

// FormatReplaceForTest exposes formatReplace.
var FormatReplaceForTest = formatReplace
