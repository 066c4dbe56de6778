// Package html normalises HTML documents into plain text. Script and
// style blocks are dropped, tags are stripped, and entities are decoded
// so the remaining text is suitable for indexing.
package html
