// Package taxonomy maps bookmark tags and folder names to bookmark indices.
//
// Tag mode ("#json #api") and folder mode ("~dev") both split the term on
// their marker and require every part to match a key. An exact key scores
// ExactMatchQuality, a key starting with the term scores PrefixMatchQuality.
package taxonomy
