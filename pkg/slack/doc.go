// Package slack connects to Slack: it receives [Events API] payloads
// over [Socket Mode], and looks up users, teams, files and permalinks
// with the [Web API], to enrich events and provision xAPI actors.
//
// [Events API]: https://docs.slack.dev/apis/events-api
// [Socket Mode]: https://docs.slack.dev/apis/events-api/comparing-http-socket-mode
// [Web API]: https://docs.slack.dev/apis/web-api
package slack
