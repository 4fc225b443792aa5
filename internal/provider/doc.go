// Package provider abstracts the vendor backends that generate images,
// videos, text and audio.
//
// A Provider declares its capabilities and implements any of the
// ImageGenerator, VideoGenerator, TextGenerator and AudioGenerator
// interfaces. Providers are collected once into an immutable Registry and
// reached through a Dispatcher, which resolves a catalog model id to the
// provider that serves it. Callers never talk to a provider directly.
package provider
