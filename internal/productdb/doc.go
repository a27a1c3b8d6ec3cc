// Package productdb decodes the launcher agent's product database, the
// binary file (conventionally product.db) in which the agent records every
// product it manages together with its install location and build version.
//
// The format is undocumented and offset-driven. A database is a run of
// sections, one per product:
//
//	0x0A  divider
//	size  one byte, length of the section content
//	ext   0x02 widens the section by 128 bytes; any other value is ignored
//	...   section content (size bytes), immediately followed by the next
//	      divider or an end marker
//
// A byte other than 0x0A at a divider position ends the run: 0x18
// terminates the file, and 0x12 introduces continuation clusters the agent
// emits for very long install paths, which this decoder does not follow.
//
// Section content is a fixed walk of length-prefixed fields separated by
// fixed-width gaps: uninstall tag, product code and install path first,
// then an area code, an optional locale block whose presence a flag byte
// announces, region and language codes, the branch name, and finally the
// build version. Everything after the install path exists only to reach
// the version field; the walk's offsets were reverse engineered and carry
// no further meaning here.
//
// Decoding is total: a section that cannot be decoded is dropped, a
// version that cannot be reached leaves the record with an empty version,
// and structural damage never fails the whole database. Decode never
// panics on arbitrary input.
package productdb
