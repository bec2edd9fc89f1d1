// Package extract pulls a JSON document out of free-form language model output.
//
// Models often wrap their answer in a markdown code fence, sometimes tagged
// ```json, sometimes bare, sometimes with prose around it. [JSON] recognises
// a small grammar:
//
//	text  := ws* prose* fence? ws*
//	fence := "```" tag? content ("```" | EOF)
//
// A fence tagged json wins over an untagged or differently tagged fence. When
// no fence is present the whole text is used. Whatever remains must be valid
// JSON, otherwise a [*ParseError] is returned.
package extract
