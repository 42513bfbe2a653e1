// Package method implements the deinterlacing algorithms.
//
// Every algorithm satisfies Method. Most are built on SimpleMethod, which
// walks the output frame row by row: rows carried by the field being
// output are produced by a copy function, the rows in between by an
// interpolation function that sees a ScanlineWindow over up to five
// neighbouring fields.
//
// Available methods, in registry order:
//
//	tomsmocomp   edge directed search woven with the previous field
//	greedyh      greedy temporal choice blended by motion
//	greedyl      greedy temporal choice
//	vfir         vertical [-1 4 2 4 -1] filter
//	linear       average of the rows above and below
//	linearblend  linear blended with the previous field
//	scalerbob    line doubling
//	weave        rows from the previous field
//	weavetff     weave assuming top field first
//	weavebff     weave assuming bottom field first
//	yadif        motion adaptive edge directed interpolation
package method
