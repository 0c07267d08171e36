// Package handlers provides the HTTP handlers for the OpenAI-compatible
// endpoints the proxy fronts.
//
// # Request Flow
//
// Chat and text completions are inspected:
//
//  1. Read and validate the body
//  2. Build an interceptor.Request (lower-cased headers, endpoint = path)
//  3. Run the request phase; a rejection is answered with 400
//  4. Write rewritten messages back into the body
//  5. Forward to the upstream
//  6. For non-streaming responses of models whose rule has a response
//     phase, run the response phase over the reply
//  7. Stream or write the response back
//
// Embeddings, image generation, moderation and audio transcription pass
// through the engine for metrics only and are forwarded unchanged.
//
// # Routes
//
//	/v1/chat/completions, /chat/completions  completion
//	/v1/completions, /completions            text_completion
//	/v1/embeddings                           embeddings
//	/v1/images/generations                   image_generation
//	/v1/moderations                          moderation
//	/v1/audio/transcriptions                 audio_transcription
package handlers
