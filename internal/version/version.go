// Copyright (c) 2020 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package version carries this client's own version string, used as
// part of a Poller's default identity.
package version

import "fmt"

// ClientVersion is a semver for this decision-builder client library.
// Bump it whenever a change affects what a coordinator operator can
// observe about this client's behavior.
const ClientVersion = "0.1.0"

// ClientName identifies this library in a Poller's default identity
// string.
const ClientName = "floto-decider"

// DefaultIdentity returns the identity string a Poller uses when
// Config.Identity is left unset. The Poller attaches it to its log
// fields; no Client call sends it to the coordinator.
func DefaultIdentity(hostname string, pid int) string {
	return fmt.Sprintf("%s@%s:%d@%s", ClientName, hostname, pid, ClientVersion)
}
