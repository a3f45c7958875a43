// Package routing implements the category routing algebra: fixed truth
// tables that combine the categorization of a surface fragment against one
// operand with its categorization against another, and the routing tables
// built from them that let a whole operation tree be evaluated with one
// indexed read per touching brush.
package routing
