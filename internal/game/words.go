package game

import "math/rand"

// The fixed secret-word pool. Citizens of a round all receive the same
// draw; impostors receive nothing.
var WORDS = []string{
	"GALAXIA", "MISTERIO", "AVENTURA", "DESIERTO", "OCÉANO", "LABERINTO", "TRAVESÍA",
	"MONTAÑA", "ISLA", "INVESTIGACIÓN", "SECRETO", "FESTIVAL", "HOSPITAL", "CIUDAD",
	"MUSEO", "TORMENTA", "PLANETA", "CASTILLO", "RECUERDO", "NOCHE", "VERANO",
	"MISIÓN", "EXPEDICIÓN", "MERKADO", "BIBLIOTECA", "CARNAVAL", "CIENCIA", "TESORO",
}

func RandomWord() string {
	return WORDS[rand.Intn(len(WORDS))]
}
