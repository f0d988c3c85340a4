package promptvault

// Version is the release version, set at build time with
// -ldflags "-X github.com/aretw0/promptvault.Version=...".
var Version = "dev"
