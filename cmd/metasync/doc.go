// Command metasync applies spreadsheet columns to clip metadata in a media
// library from the command line.
//
// A sheet comes from a CSV file, the Google Sheets API or a published HTML
// table. Rows are matched to clips by the filename column and each mapped
// column is written as a metadata field. The outcome is printed as a table,
// or as JSON with --json.
package main
