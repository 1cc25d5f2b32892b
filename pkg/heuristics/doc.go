// Package heuristics provides the individual safety and format checks applied
// to untrusted strings: user queries, oracle plans, tool outputs and answers.
//
// Invariants:
// - Rules are stateless and immutable once constructed; a rule is identified by its ID.
// - A failing Verdict never carries a sanitized value.
// - Denylist matches are absolute blocks; sanitizers never run on blocked input.
//
// Usage:
//
//	deny := heuristics.Denylist(heuristics.DefaultFamilies())
//	if v := deny.Check("rm -rf /"); !v.Passed {
//		fmt.Println(v.Reason)
//	}
package heuristics
