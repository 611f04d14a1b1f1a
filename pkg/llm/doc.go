// Package llm defines the two external model capabilities the engine
// depends on, text completion and embedding, together with the OpenAI and
// Anthropic implementations and a few decorators (retry, embedding cache).
//
// Provider credentials and model names are passed only to the constructors
// in this package. Memory stores, retrievers and the orchestrator receive
// ready-made Completer and Embedder values and never see configuration.
//
// Error taxonomy:
//
//   - ErrEmbedding: the embedding capability failed.
//   - ErrCompletion: the text-completion capability failed.
//   - ErrParse / *ParseError: structured output could not be extracted.
//     Callers recover locally; it is never fatal to a run.
package llm
