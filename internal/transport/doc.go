// Package transport builds the HTTP clients used for every outbound request:
// page fetches, robots.txt, backend probes and LLM calls.
//
// A Client carries the User-Agent, the optional proxy and the timeouts, and
// hands out *http.Client values configured accordingly. Proxies are given as
// URLs: socks5:// and socks5h:// dial through golang.org/x/net/proxy, while
// http:// and https:// use the standard CONNECT proxy support.
package transport
