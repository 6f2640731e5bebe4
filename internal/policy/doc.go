// Package policy computes the effective crawl settings of a URL.
//
// Three layers are merged, each shallow-overwriting the keys it sets:
//
//  1. the global settings of the configuration file
//  2. depth_settings for the URL's frontier depth
//  3. the url_settings rule selected for the URL
//
// A url_settings rule whose pattern equals the URL exactly is selected
// outright. Otherwise the first rule, in declared order, whose regular
// expression matches the URL is selected. Later rules are never consulted
// once one matches.
package policy
