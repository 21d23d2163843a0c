// Package extract turns free-form intake text into structured patient
// identity records. The static extractor works offline with regex heuristics;
// the openai and anthropic subpackages delegate to hosted language models
// through the same extraction contract.
package extract
