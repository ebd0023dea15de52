// Package warehouse loads the star schema into a SQL database.
//
// Output table names map onto fixed warehouse tables (time_dim to Time_Dim,
// instagram_fact to Instagram_Fact and so on) and snake_case columns onto
// their PascalCase warehouse columns. Inserts use INSERT OR IGNORE keyed on
// each table's primary key, so repeated loads of the same run are no-ops.
// The default driver is the pure Go modernc.org/sqlite.
package warehouse
