// Package pkgdiff compares two published versions of a package.
//
// Archives are fetched from a registry source, decompressed, parsed into a
// flat path map and stripped of their wrapping directory. Each extraction
// is cached per session and computed at most once per key, even under
// concurrent requests. A diff then runs in two stages: a structural tree
// diff of both versions, followed by per-file content diffs on demand.
//
// Basic usage:
//
//	s, _ := pkgdiff.New(pkgdiff.WithSource("npm", pkgdiff.NPM("", time.Minute)))
//
//	// Structural diff
//	res, _ := s.Diff(ctx, "npm", "left-pad", "1.2.0", "1.3.0")
//	for _, e := range res.Tree {
//	    fmt.Println(e.Status, e.Path)
//	}
//
//	// Content diff for one file of the last tree diff
//	c, _ := s.FileDiff(ctx, "index.js", "")
//	fmt.Println(c.Data)
//
// Requests can also be sent as messages:
//
//	resp := s.Handle(ctx, pkgdiff.Request{Type: pkgdiff.RequestStartDiff, Source: "npm", ...})
//
// or dispatched over a worker pool with Serve.
package pkgdiff
