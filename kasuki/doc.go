// Package kasuki implements a Discord bot for anime, manga and visual
// novel communities.
//
// Slash commands look up media, characters, staff, studios and users on
// AniList (GraphQL) and VNDB (REST), post random images from waifu.pics,
// and forward questions, image prompts and audio files to an
// OpenAI-compatible API. AniList users can be linked to discord accounts,
// which enables levels (computed from watched/read totals) and affinity
// between two users.
//
// Key components of the package include:
//
//   - Bot: The main struct, which wires everything together and runs it.
//   - Store: Persisted guild/user settings, backed by SQLite or PostgreSQL.
//   - RemoteCache: An LRU cache of remote responses, with concurrent
//     misses for the same request coalesced into one fetch.
//   - AnilistClient, VNDBClient, WaifuClient, AI: Remote API clients.
//   - Discord: Handles the discord session and command registration.
//   - API: An admin API, which also receives webhook interactions.
//
// Guild admins can enable or disable modules (AI, ANILIST, GAME,
// NEW_MEMBER, ANIME, VN) per guild, while the row for guild "0" acts as
// a global kill switch. Guilds may also subscribe to airing
// notifications for an anime, which a background job posts through a
// channel webhook once each episode airs.
package kasuki
