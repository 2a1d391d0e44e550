// Package api
// Author: momentics <momentics@gmail.com>
//
// Shared error model and DTOs used by every hioload-http package.
// The package has no dependencies on the rest of the module so that
// protocol, pool and server code can all refer to it.
package api
