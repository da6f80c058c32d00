package domain

// KeyPrefix namespaces every cache-store key written by this process.
// Overridden from config (storage.key_prefix) at startup.
var KeyPrefix = "statuta:"
