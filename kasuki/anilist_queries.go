package kasuki

const anilistMediaFields = `
	id
	idMal
	type
	format
	status
	title { romaji english native userPreferred }
	description(asHtml: false)
	startDate { year month day }
	endDate { year month day }
	season
	seasonYear
	episodes
	duration
	chapters
	volumes
	genres
	synonyms
	averageScore
	meanScore
	popularity
	favourites
	isAdult
	siteUrl
	coverImage { extraLarge large color }
	bannerImage
	studios(isMain: true) { nodes { id name siteUrl isAnimationStudio } }
	staff(perPage: 5, sort: RELEVANCE) { edges { role node { id name { full } siteUrl } } }
	tags { name isMediaSpoiler rank }
	nextAiringEpisode { airingAt timeUntilAiring episode }
`

const anilistQueryMediaSearch = `
query ($search: String, $type: MediaType, $format: MediaFormat) {
	Media(search: $search, type: $type, format: $format) {` + anilistMediaFields + `}
}`

const anilistQueryMediaByID = `
query ($id: Int, $type: MediaType, $format: MediaFormat) {
	Media(id: $id, type: $type, format: $format) {` + anilistMediaFields + `}
}`

const anilistQueryMediaAutocomplete = `
query ($search: String, $type: MediaType, $perPage: Int) {
	Page(page: 1, perPage: $perPage) {
		media(search: $search, type: $type) {
			id
			title { romaji english userPreferred }
		}
	}
}`

const anilistQueryNextAiring = `
query ($id: Int) {
	Media(id: $id, type: ANIME) {
		id
		title { romaji english userPreferred }
		episodes
		siteUrl
		coverImage { extraLarge large }
		nextAiringEpisode { airingAt timeUntilAiring episode }
	}
}`

const anilistQueryRandomMedia = `
query ($page: Int, $type: MediaType) {
	Page(page: $page, perPage: 1) {
		media(type: $type, sort: ID) {` + anilistMediaFields + `}
	}
}`

// anilistQueryPageCheck is used to find the last page of media. It's never
// cached.
const anilistQueryPageCheck = `
query ($page: Int, $type: MediaType) {
	Page(page: $page, perPage: 1) {
		pageInfo { currentPage hasNextPage }
		media(type: $type, sort: ID) { id }
	}
}`

const anilistCharacterFields = `
	id
	name { full native userPreferred alternative }
	image { large }
	description(asHtml: false)
	gender
	age
	bloodType
	dateOfBirth { year month day }
	favourites
	siteUrl
	media(perPage: 5, sort: POPULARITY_DESC) {
		nodes { id type siteUrl title { romaji english userPreferred } }
	}
`

const anilistQueryCharacterSearch = `
query ($search: String) {
	Character(search: $search) {` + anilistCharacterFields + `}
}`

const anilistQueryCharacterAutocomplete = `
query ($search: String, $perPage: Int) {
	Page(page: 1, perPage: $perPage) {
		characters(search: $search) { id name { full userPreferred } }
	}
}`

const anilistStaffFields = `
	id
	name { full native userPreferred }
	image { large }
	description(asHtml: false)
	primaryOccupations
	gender
	age
	homeTown
	yearsActive
	dateOfBirth { year month day }
	dateOfDeath { year month day }
	favourites
	siteUrl
	staffMedia(perPage: 5, sort: POPULARITY_DESC) {
		nodes { id type siteUrl title { romaji english userPreferred } }
	}
	characters(perPage: 5, sort: FAVOURITES_DESC) {
		nodes { id siteUrl name { full userPreferred } }
	}
`

const anilistQueryStaffSearch = `
query ($search: String) {
	Staff(search: $search) {` + anilistStaffFields + `}
}`

const anilistQueryStaffAutocomplete = `
query ($search: String, $perPage: Int) {
	Page(page: 1, perPage: $perPage) {
		staff(search: $search) { id name { full userPreferred } }
	}
}`

const anilistQueryStudioSearch = `
query ($search: String) {
	Studio(search: $search) {
		id
		name
		isAnimationStudio
		favourites
		siteUrl
		media(perPage: 10, sort: POPULARITY_DESC) {
			nodes { id type siteUrl title { romaji english userPreferred } }
		}
	}
}`

const anilistQueryStudioAutocomplete = `
query ($search: String, $perPage: Int) {
	Page(page: 1, perPage: $perPage) {
		studios(search: $search) { id name }
	}
}`

const anilistUserFields = `
	id
	name
	siteUrl
	avatar { large }
	bannerImage
	options { profileColor }
	statistics {
		anime {
			count
			meanScore
			standardDeviation
			minutesWatched
			episodesWatched
			statuses { status count }
			tags(limit: 10, sort: COUNT_DESC) { count tag { name } }
			genres(limit: 10, sort: COUNT_DESC) { count genre }
		}
		manga {
			count
			meanScore
			standardDeviation
			chaptersRead
			volumesRead
			statuses { status count }
			tags(limit: 10, sort: COUNT_DESC) { count tag { name } }
			genres(limit: 10, sort: COUNT_DESC) { count genre }
		}
	}
`

const anilistQueryUserByName = `
query ($name: String) {
	User(name: $name) {` + anilistUserFields + `}
}`

const anilistQueryUserByID = `
query ($id: Int) {
	User(id: $id) {` + anilistUserFields + `}
}`
