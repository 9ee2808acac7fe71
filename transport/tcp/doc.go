// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements the low-level TCP listener for RKV's
// host-to-host replication links.
// Provides hook points and extensibility for advanced optimizations.
package tcp
