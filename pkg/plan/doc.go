// Package plan defines the constrained intermediate representation an oracle
// returns for one step: an ordered list of tool calls with explicit data
// dependency edges, plus an optional final answer or follow-up query.
//
// Oracle output is treated as data. Nothing in a plan is ever evaluated as
// code; placeholders of the form {{call-id}} are the only way one call can
// consume the output of another.
//
// Wire format:
//
//	{
//	  "calls": [
//	    {"id": "s", "tool": "search", "args": {"query": "go generics"}},
//	    {"id": "f", "tool": "fetch", "args": {"url": "{{s}}"}}
//	  ],
//	  "final_answer": "Summary: {{f}}",
//	  "further_processing": ""
//	}
package plan
