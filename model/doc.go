// Package model defines the provider-agnostic abstraction used by the LLM
// brain to talk to language models.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic, Gemini) implement the Model interface in
// their own sub-packages so the brain remains decoupled from vendor SDKs.
package model
