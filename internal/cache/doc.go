// Package cache keeps decoded payload chunks of compressed segments.
//
// A compressed payload segment decodes a whole chunk of documents to serve
// one payload. Caching recent chunks lets neighbouring lookups skip the
// decoder. Capacity is counted in bytes and, when a resource.Controller is
// given, reserved from its memory budget; a refused reservation simply
// leaves the chunk uncached.
//
// [LRU] is guarded by one mutex. [Sharded] hashes keys over many of them
// and is what an open database uses.
package cache
