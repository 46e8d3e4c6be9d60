// Package fetch retrieves a page and its linked resources, populating
// the resource graph and the local mirror.
//
// The root document is fetched first and parsed to enumerate referenced
// resources (stylesheets, scripts, images, fonts). Dependent resources
// are fetched concurrently with a bounded worker pool; a failed or
// timed-out fetch yields an unresolved graph entry, never a run abort.
// One level of CSS url() discovery follows fetched stylesheets; deeper
// @import chains are recorded as unresolved by design.
package fetch
