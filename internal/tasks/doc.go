// Package tasks holds the mixtape expansion pipeline.
//
// # Matching
//
// [TrackMatcher] picks the single best catalog candidate for a desired song by comparing normalized titles
// with a Levenshtein similarity in [0, 1]. Scores at or below the threshold are not matches. Artists are not
// scored.
//
// # Expansion
//
// [PlaylistExpander] grows a user's queue from a handful of seed songs:
//
//  1. Ask the language model for recommendations in the seeds' mood and genre
//  2. Extract the JSON array of {title, artist} objects from the reply
//  3. For each recommendation that is not a seed, search the catalog (title + artist, then title alone)
//  4. Queue the best match unless the user already has it, otherwise record the song as not found
//  5. Re-read and return the full queue
//
// Songs are processed one at a time so that each insert sees every earlier one.
//
// # Progress Reporting
//
// [PlaylistExpander.ExpandWithProgress] emits [ProgressUpdate] values on an optional channel. Sends never
// block: a full channel drops the update.
package tasks
