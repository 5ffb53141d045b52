// Package standalone — режим группы из одного процесса: без worker'ов,
// одна задача за итерацию, те же правила деградированных results и
// та же фиксированная пауза на пустой очереди.
package standalone
