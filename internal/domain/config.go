package domain

// KeyPrefix namespaces every key the service writes to a shared Redis/Valkey instance.
const KeyPrefix = "tenderdraft:"
